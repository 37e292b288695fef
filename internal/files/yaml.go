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

package files

import (
	"io"

	"gopkg.in/yaml.v3"
)

// EncodeYAML encodes an object to the writer. The encoder is closed so
// the trailing document terminator is flushed.
func EncodeYAML(f io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// DecodeYAML decodes an object from the reader.
func DecodeYAML(f io.Reader, v interface{}) error {
	return yaml.NewDecoder(f).Decode(v)
}

// ReadYAMLConfig decodes a YAML object from the specified file.
func ReadYAMLConfig(path string, conf interface{}) error {
	return ReadConfig(
		DecodeYAML,
		path,
		conf,
	)
}
