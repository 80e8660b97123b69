// Package diff renders readable differences for test failures.
package diff

import (
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"

	"github.com/walteh/semdelta/pkg/semtok"
)

// render diffs the printed forms. godebug always echoes unchanged lines, so
// equal inputs are caught before diffing.
func render(got, want string) string {
	if got == want {
		return ""
	}
	abc := diff.Diff(got, want)
	str := "\n\n"
	str += "to convert ACTUAL ⏩️ EXPECTED:\n\n"
	str += "add:    ➕\n"
	str += "remove: ➖\n"
	str += strings.ReplaceAll(strings.ReplaceAll("\n"+abc, "\n-", "\n➖"), "\n+", "\n➕")

	return str
}

// DiffExportedOnly pretty prints both values and diffs the output.
func DiffExportedOnly[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return render(printer.Sprint(got), printer.Sprint(want))
}

// Streams diffs two flat token arrays one record per line. Arrays that do not
// hold whole records are compared value by value.
func Streams(want, got []uint32) string {
	return render(streamLines(got), streamLines(want))
}

func streamLines(flat []uint32) string {
	records, err := semtok.ToRecords(flat)
	if err != nil {
		lines := make([]string, 0, len(flat))
		for _, v := range flat {
			lines = append(lines, strconv.FormatUint(uint64(v), 10))
		}
		return strings.Join(lines, "\n")
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}
