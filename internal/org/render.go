// Package org renders tasks as org-mode TODO entries and appends them to an outline file.
package org

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"telegram2org/internal/model"
)

// Org timestamp layouts.
const (
	DateLayout     = "2006-01-02 Mon"
	DateTimeLayout = "2006-01-02 Mon 15:04"
)

var whitespace = regexp.MustCompile(`\s+`)

// Render formats a task as an org TODO entry. The scheduled and created
// stamps come from now, not from the task.
func Render(t model.Task, now time.Time, tag string) string {
	title := whitespace.ReplaceAllString(t.Title, " ")

	tagText := ""
	if tag != "" {
		tagText = ":" + tag + ":"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "* TODO %s %s\n", title, tagText)
	fmt.Fprintf(&b, "  SCHEDULED: <%s>\n", now.Format(DateLayout))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":CREATED:  [%s]\n", now.Format(DateTimeLayout))
	b.WriteString(":END:\n")
	b.WriteString(strings.Join(t.Notes, "\n"))
	return b.String()
}
