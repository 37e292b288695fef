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

package patchgate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/RedMane/ipam-engine/pkg/validate"
)

type PatchGateTestSuite struct {
	suite.Suite
}

func (suite *PatchGateTestSuite) gate() *Gate {
	return New(
		Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Name(value), nil
			},
			ErrMsg: "Space name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.",
		},
		Rule{
			Op:   "replace",
			Path: "/desc",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Description(value), nil
			},
			ErrMsg: "Space description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.",
		},
	)
}

func (suite *PatchGateTestSuite) TestScrubAppliesAllowedOps() {
	ctx := context.Background()
	doc := []byte(`{"name": "corp", "desc": "old", "blocks": []}`)

	patch, err := suite.gate().Scrub(ctx, []byte(`[
		{"op": "replace", "path": "/name", "value": "corp2"},
		{"op": "replace", "path": "/desc", "value": "new description"}
	]`))
	suite.Require().NoError(err)

	updated, err := patch.Apply(doc)
	suite.NoError(err)
	suite.JSONEq(`{"name": "corp2", "desc": "new description", "blocks": []}`, string(updated))
}

func (suite *PatchGateTestSuite) TestUnlistedOpsAreDropped() {
	ctx := context.Background()
	doc := []byte(`{"name": "corp", "desc": "old", "blocks": []}`)

	// Neither remove nor an unknown path is in the allow-list; both are
	// dropped without failing the patch.
	patch, err := suite.gate().Scrub(ctx, []byte(`[
		{"op": "remove", "path": "/name"},
		{"op": "replace", "path": "/blocks", "value": []},
		{"op": "replace", "path": "/desc", "value": "kept"}
	]`))
	suite.Require().NoError(err)

	updated, err := patch.Apply(doc)
	suite.NoError(err)
	suite.JSONEq(`{"name": "corp", "desc": "kept", "blocks": []}`, string(updated))
}

func (suite *PatchGateTestSuite) TestFailedValidationRejectsWholePatch() {
	ctx := context.Background()

	_, err := suite.gate().Scrub(ctx, []byte(`[
		{"op": "replace", "path": "/desc", "value": "fine"},
		{"op": "replace", "path": "/name", "value": "-bad-"}
	]`))

	var rejected *RejectedError
	suite.ErrorAs(err, &rejected)
	suite.Contains(rejected.Msg, "Space name")
}

func (suite *PatchGateTestSuite) TestValidatorErrorsPropagate() {
	ctx := context.Background()
	gate := New(Rule{
		Op:   "replace",
		Path: "/cidr",
		Validate: func(_ context.Context, value string) (bool, error) {
			_, err := validate.CIDR(value)
			return err == nil, err
		},
		ErrMsg: "unused",
	})

	_, err := gate.Scrub(ctx, []byte(`[{"op": "replace", "path": "/cidr", "value": "not-a-cidr"}]`))
	suite.Error(err)
	var rejected *RejectedError
	suite.False(errors.As(err, &rejected), "specific validator errors are not rule rejections")
}

func (suite *PatchGateTestSuite) TestMalformedPatchFails() {
	_, err := suite.gate().Scrub(context.Background(), []byte(`{"op": "replace"}`))
	suite.Error(err)
}

func TestPatchGateTestSuite(t *testing.T) {
	suite.Run(
		t,
		new(PatchGateTestSuite),
	)
}
