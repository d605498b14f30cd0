// Package compdb reads and writes clang compilation databases
// (compile_commands.json) for generated targets.
package compdb

import (
	"bufio"
	"encoding/json"
	"io"
	"slices"

	billy "github.com/go-git/go-billy/v5"
	"github.com/samkaj/maker/internal/builder/gen"
)

const Filename = "compile_commands.json"

// Entry is one compile command. Paths are relative to Directory.
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Output    string   `json:"output,omitempty"`
}

type Database []Entry

// FromTarget lists the compile command of every source in t, as run from dir.
func FromTarget(dir, cc string, t gen.Target) Database {
	db := make(Database, 0, len(t.Sources))
	for _, src := range t.Sources {
		args := make([]string, 0, len(t.Cflags)+5)
		args = append(args, cc)
		args = append(args, t.Cflags...)
		args = append(args, "-c", src.Src, "-o", src.Obj)
		db = append(db, Entry{
			Directory: dir,
			File:      src.Src,
			Arguments: args,
			Output:    src.Obj,
		})
	}
	return db
}

func parse(rdr io.Reader) (Database, error) {
	var db Database
	if err := json.NewDecoder(bufio.NewReader(rdr)).Decode(&db); err != nil {
		return nil, err
	}
	return db, nil
}

// Load parses the database at name on fs.
func Load(fs billy.Basic, name string) (Database, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func (db Database) Save(fs billy.Basic, name string) error {
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		return err
	}
	return bufw.Flush()
}

// Equal reports whether db and other list the same commands in the same order.
func (db Database) Equal(other Database) bool {
	return slices.EqualFunc(db, other, func(a, b Entry) bool {
		return a.Directory == b.Directory && a.File == b.File && a.Output == b.Output &&
			slices.Equal(a.Arguments, b.Arguments)
	})
}
