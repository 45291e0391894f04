package bulk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCSV(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		rows    []map[string]string
		want    string
	}{
		{name: "simple", headers: []string{"a", "b"}, rows: []map[string]string{{"a": "1", "b": "2"}}, want: "a;b\n1;2\n"},
		{name: "header only", headers: []string{"a", "b"}, want: "a;b\n"},
		{name: "missing value", headers: []string{"a", "b"}, rows: []map[string]string{{"b": "2"}, {"a": "3"}}, want: "a;b\n;2\n3;\n"},
		{name: "separator quoted", headers: []string{"a"}, rows: []map[string]string{{"a": "x;y"}}, want: "a\n\"x;y\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCSV(tt.headers, tt.rows))
		})
	}
}

func TestBuildCSV_Split(t *testing.T) {
	rows := []map[string]string{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}}
	lines := strings.Split(strings.TrimSuffix(BuildCSV([]string{"a", "b"}, rows), "\n"), "\n")

	assert.Equal(t, []string{"a", "b"}, strings.Split(lines[0], ";"))
	for i, line := range lines[1:] {
		fields := strings.Split(line, ";")
		assert.Equal(t, rows[i], map[string]string{"a": fields[0], "b": fields[1]})
	}
}
