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
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v7"
	"github.com/pkg/errors"
)

// Azure lists the virtual networks of one subscription. Only IPv4 address
// prefixes are surfaced; the engine is IPv4 only.
type Azure struct {
	client *armnetwork.VirtualNetworksClient
}

// NewAzure builds a provider using the default Azure credential chain.
func NewAzure(subscriptionID string) (*Azure, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.Wrap(err, "building azure credential")
	}
	client, err := armnetwork.NewVirtualNetworksClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building virtual networks client")
	}
	return &Azure{client: client}, nil
}

// List enumerates every virtual network in the subscription.
func (a *Azure) List(ctx context.Context) ([]Network, error) {
	var nets []Network

	pager := a.client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "listing virtual networks")
		}
		for _, vnet := range page.Value {
			if vnet == nil || vnet.ID == nil || vnet.Properties == nil {
				continue
			}
			net := Network{ID: *vnet.ID}
			if vnet.Properties.AddressSpace != nil {
				for _, prefix := range vnet.Properties.AddressSpace.AddressPrefixes {
					if prefix == nil || strings.Contains(*prefix, ":") {
						continue
					}
					net.Prefixes = append(net.Prefixes, *prefix)
				}
			}
			for _, subnet := range vnet.Properties.Subnets {
				if subnet == nil || subnet.Properties == nil || subnet.Properties.AddressPrefix == nil {
					continue
				}
				if strings.Contains(*subnet.Properties.AddressPrefix, ":") {
					continue
				}
				entry := Subnet{Prefix: *subnet.Properties.AddressPrefix}
				if subnet.Name != nil {
					entry.Name = *subnet.Name
				}
				net.Subnets = append(net.Subnets, entry)
			}
			nets = append(nets, net)
		}
	}
	return nets, nil
}
