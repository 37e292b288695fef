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

// Package auth carries the caller identity resolved by the outer gateway.
// Token verification happens upstream; the engine only decodes claims to
// label reservations with their creator.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Context is the resolved identity of one request.
type Context struct {
	TenantID      string
	IsAdmin       bool
	UserAssertion string
}

// UserName extracts the caller's identity from the bearer assertion:
// preferred_username when present, otherwise "spn:<oid>" for service
// principals. The token signature was already verified upstream, so the
// claims are read without verification.
func (c *Context) UserName() string {
	if c.UserAssertion == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(c.UserAssertion, claims); err != nil {
		return ""
	}
	if name, ok := claims["preferred_username"].(string); ok && name != "" {
		return name
	}
	if oid, ok := claims["oid"].(string); ok && oid != "" {
		return fmt.Sprintf("spn:%s", oid)
	}
	return ""
}
