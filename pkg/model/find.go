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

package model

import "strings"

// Name lookups are case-insensitive throughout the hierarchy; reservation
// ids are matched exactly. All helpers return pointers into the document
// so callers can mutate in place before the conditional replace.

// FindBlock returns the named block of a space.
func FindBlock(space *Space, name string) *Block {
	for i := range space.Blocks {
		if strings.EqualFold(space.Blocks[i].Name, name) {
			return &space.Blocks[i]
		}
	}
	return nil
}

// FindExternal returns the named external network of a block.
func FindExternal(block *Block, name string) *External {
	for i := range block.Externals {
		if strings.EqualFold(block.Externals[i].Name, name) {
			return &block.Externals[i]
		}
	}
	return nil
}

// FindSubnet returns the named subnet of an external network.
func FindSubnet(external *External, name string) *ExtSubnet {
	for i := range external.Subnets {
		if strings.EqualFold(external.Subnets[i].Name, name) {
			return &external.Subnets[i]
		}
	}
	return nil
}

// FindEndpoint returns the named endpoint of an external subnet.
func FindEndpoint(subnet *ExtSubnet, name string) *ExtEndpoint {
	for i := range subnet.Endpoints {
		if strings.EqualFold(subnet.Endpoints[i].Name, name) {
			return &subnet.Endpoints[i]
		}
	}
	return nil
}

// FindReservation returns the reservation with the given id.
func FindReservation(block *Block, id string) *Reservation {
	for i := range block.Resv {
		if block.Resv[i].ID == id {
			return &block.Resv[i]
		}
	}
	return nil
}

// HasVNet reports whether the block already references the network id.
func HasVNet(block *Block, id string) bool {
	for _, ref := range block.VNets {
		if strings.EqualFold(ref.ID, id) {
			return true
		}
	}
	return false
}
