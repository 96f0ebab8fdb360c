package ipdb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/tools/imports"
)

const importPath = "github.com/ExodusVPN/ip-db"

// WriteGo writes t as Go source declaring the ipv4Table and ipv6Table
// arrays in package pkg. When pkg is not ipdb the entry types are
// qualified with this package's import path.
func (t *Table) WriteGo(w io.Writer, pkg string) error {
	qual := ""
	if pkg != "ipdb" {
		qual = "ipdb."
	}

	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "// Code generated by \"ipdb gen\"; DO NOT EDIT.\n\npackage %s\n\n", pkg)

	var deps []string
	if qual != "" {
		deps = append(deps, fmt.Sprintf("ipdb %q", importPath))
	}
	if len(t.v6) > 0 {
		deps = append(deps, `"lukechampine.com/uint128"`)
	}
	if len(deps) > 0 {
		buf.WriteString("import (\n")
		for _, d := range deps {
			buf.WriteString(d + "\n")
		}
		buf.WriteString(")\n\n")
	}

	fmt.Fprintf(buf, "var ipv4Table = [...]%sEntry4{", qual)
	if len(t.v4) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range t.v4 {
		fmt.Fprintf(buf, "{0x%x, 0x%x, %d},\n", e.First, e.Last, e.Country)
	}
	buf.WriteString("}\n\n")

	fmt.Fprintf(buf, "var ipv6Table = [...]%sEntry6{", qual)
	if len(t.v6) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range t.v6 {
		fmt.Fprintf(buf, "{uint128.New(0x%x, 0x%x), uint128.New(0x%x, 0x%x), %d},\n",
			e.First.Lo, e.First.Hi, e.Last.Lo, e.Last.Hi, e.Country)
	}
	buf.WriteString("}\n")

	src, err := imports.Process("db.go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return errors.Wrap(err, "ipdb: format generated source")
	}
	_, err = w.Write(src)
	return err
}
