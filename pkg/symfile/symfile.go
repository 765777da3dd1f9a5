// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
// Package symfile stores the exported signatures of compiled units, such that
// other units can be compiled against them.  A symbol file is a bbolt database
// holding one bucket per unit.  Each declaration is stored as a JSON value,
// keyed by its position within the unit.
package symfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gentle-lang/gentle/pkg/ast"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// File is an open symbol file.
type File struct {
	filename string
	db       *bolt.DB
}

// Open a symbol file, creating it if it does not exist.
func Open(filename string) (*File, error) {
	db, err := bolt.Open(filename, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening symbol file %s: %w", filename, err)
	}
	//
	return &File{filename, db}, nil
}

// Close this symbol file.
func (f *File) Close() error {
	return f.db.Close()
}

// Units returns the names of the units held in this file, in sorted order.
func (f *File) Units() ([]string, error) {
	var units []string
	//
	err := f.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			units = append(units, string(name))
			return nil
		})
	})
	//
	return units, err
}

// Export the signatures of a set of declarations as a given unit, replacing
// any previous export of that unit.  Rules are not exported.
func (f *File) Export(unit string, decls []ast.Declaration) error {
	var values [][]byte
	//
	for _, d := range decls {
		js, err := json.Marshal(encode(d))
		if err != nil {
			return err
		}
		//
		values = append(values, js)
	}
	//
	return f.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(unit)) != nil {
			if err := tx.DeleteBucket([]byte(unit)); err != nil {
				return err
			}
		}
		//
		b, err := tx.CreateBucket([]byte(unit))
		if err != nil {
			return err
		}
		//
		for _, js := range values {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			//
			if err := b.Put(key(seq), js); err != nil {
				return err
			}
		}
		//
		return nil
	})
}

// Import the declarations of a given unit, in the order they were exported.
// Predicates are imported as external declarations.
func (f *File) Import(unit string) ([]ast.Declaration, error) {
	var decls []ast.Declaration
	//
	err := f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(unit))
		if b == nil {
			return fmt.Errorf("unit %s not found in %s", unit, f.filename)
		}
		//
		c := b.Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var e entry
			//
			if err := json.Unmarshal(bs, &e); err != nil {
				return err
			}
			//
			decl, err := e.decode()
			if err != nil {
				return fmt.Errorf("unit %s: %w", unit, err)
			}
			//
			decls = append(decls, decl)
		}
		//
		return nil
	})
	//
	if err != nil {
		return nil, err
	}
	//
	log.Infof("imported %d declarations of %s from %s", len(decls), unit, f.filename)
	//
	return decls, nil
}

// Keys are big-endian, such that cursors visit them in export order.
func key(seq uint64) []byte {
	var bs = make([]byte, 8)
	binary.BigEndian.PutUint64(bs, seq)
	//
	return bs
}
