/*
 MIT License

 (C) Copyright 2026 RedMane Technology LLC

 Permission is hereby granted, free of charge, to any person obtaining a
 copy of this software and associated documentation files (the "Software"),
 to deal in the Software without restriction, including without limitation
 the rights to use, copy, modify, merge, publish, distribute, sublicense,
 and/or sell copies of the Software, and to permit persons to whom the
 Software is furnished to do so, subject to the following conditions:

 The above copyright notice and this permission notice shall be included
 in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 OTHER DEALINGS IN THE SOFTWARE.
*/

package inventory

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/RedMane/ipam-engine/internal/files"
)

// NewFromFile loads a fixed snapshot from a YAML or JSON file, selected
// by extension. Used where no cloud provider is reachable: development,
// air-gapped sites, and integration tests.
func NewFromFile(path string) (*Static, error) {
	var nets []Network
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = files.ReadJSONConfig(path, &nets)
	default:
		err = files.ReadYAMLConfig(path, &nets)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading inventory snapshot from %s", path)
	}
	return &Static{Networks: nets}, nil
}
