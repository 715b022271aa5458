package preview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	gotUA      string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.gotUA = req.Header.Get("User-Agent")
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
		want      string
		wantErr   error
		anyErr    bool
	}{
		{
			name:      "rss feed",
			transport: &mockTransport{body: loadFixture(t, "testdata/sample.xml"), statusCode: 200},
			want:      "DevOps Weekly",
		},
		{
			name:      "html title",
			transport: &mockTransport{body: loadFixture(t, "testdata/page.html"), statusCode: 200},
			want:      "Go Blog: Range Over Function Types",
		},
		{
			name:      "open graph title wins",
			transport: &mockTransport{body: loadFixture(t, "testdata/og.html"), statusCode: 200},
			want:      "Shared Card Title",
		},
		{
			name:      "page without title",
			transport: &mockTransport{body: "<html><body>nothing</body></html>", statusCode: 200},
			wantErr:   ErrNoTitle,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			anyErr:    true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			anyErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.transport)
			got, err := r.Title(context.Background(), "https://example.com/page")

			if tt.wantErr != nil || tt.anyErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff("telegram2org/1.0", tt.transport.gotUA); diff != "" {
				t.Errorf("user agent mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
