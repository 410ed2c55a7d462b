// Package templates embeds the Memory Kernel contract files and the default
// docs hub set written by `openkit memory init`.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed memory/*.yaml
var memoryFS embed.FS

//go:embed docs
var docsFS embed.FS

// Contract names a file under memory/ and where it lands inside .openkit.
type Contract struct {
	Name string
	Dest string
}

// Contracts lists the files `memory init` writes, relative to the project root.
var Contracts = []Contract{
	{Name: "config.yaml", Dest: ".openkit/memory/config.yaml"},
	{Name: "derivation.yaml", Dest: ".openkit/memory/derivation.yaml"},
	{Name: "queue.yaml", Dest: ".openkit/ops/queue.yaml"},
}

// ContractFile returns the embedded contract with the given name.
func ContractFile(name string) ([]byte, error) {
	data, err := memoryFS.ReadFile(path.Join("memory", name))
	if err != nil {
		return nil, fmt.Errorf("templates: missing embedded contract %s: %w", name, err)
	}
	return data, nil
}

// WalkDocs calls fn for every seed document with its path relative to the
// docs root, in lexical order.
func WalkDocs(fn func(rel string, data []byte) error) error {
	return fs.WalkDir(docsFS, "docs", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := docsFS.ReadFile(p)
		if err != nil {
			return err
		}
		return fn(p[len("docs/"):], data)
	})
}
