/*
Copyright 2026 RedMane Technology LLC
*/
package main

import (
	"github.com/RedMane/ipam-engine/cmd"
)

func main() {
	cmd.Execute()
}
