// Package task turns chat messages into formatted tasks.
package task

import (
	"slices"

	"telegram2org/internal/model"
)

// Group splits messages into groups of identical timestamps, ordered by
// ascending timestamp. Messages keep their input order within a group.
func Group(messages []model.Message) []model.Group {
	index := make(map[int64]int)
	var groups []model.Group
	for _, m := range messages {
		i, ok := index[m.Date]
		if !ok {
			i = len(groups)
			index[m.Date] = i
			groups = append(groups, model.Group{Date: m.Date})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	slices.SortStableFunc(groups, func(a, b model.Group) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		}
		return 0
	})
	return groups
}
