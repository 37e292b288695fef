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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/internal/files"
	"github.com/RedMane/ipam-engine/pkg/docstore"
	"github.com/RedMane/ipam-engine/pkg/model"
)

// reservationRow is the export shape of one reservation.
type reservationRow struct {
	Space     string  `csv:"space" json:"space" yaml:"space"`
	Block     string  `csv:"block" json:"block" yaml:"block"`
	ID        string  `csv:"id" json:"id" yaml:"id"`
	CIDR      string  `csv:"cidr" json:"cidr" yaml:"cidr"`
	Desc      string  `csv:"desc" json:"desc" yaml:"desc"`
	Status    string  `csv:"status" json:"status" yaml:"status"`
	CreatedOn float64 `csv:"created_on" json:"created_on" yaml:"created_on"`
	CreatedBy string  `csv:"created_by" json:"created_by" yaml:"created_by"`
	Settled   bool    `csv:"settled" json:"settled" yaml:"settled"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reservations from the document store",
	Long: `Export every reservation of a tenant, including settled ones.

	Example: ipam export --tenant tenant-a --data-dir /var/lib/ipam --out reservations.csv

	Formats: csv (default), json, yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlags(cmd.Flags())
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return exportReservations(cfg, viper.GetString("tenant"), viper.GetString("out"), viper.GetString("format"))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("tenant", "", "Tenant to export")
	exportCmd.Flags().String("store", "file", "Document store backend: file or etcd")
	exportCmd.Flags().String("data-dir", "ipam-data", "Data directory for the file store")
	exportCmd.Flags().StringSlice("etcd-endpoints", []string{"127.0.0.1:2379"}, "etcd endpoints for the etcd store")
	exportCmd.Flags().String("out", "reservations.csv", "Output file, or '-' for stdout")
	exportCmd.Flags().String("format", "csv", "Output format: csv, json, or yaml")
	exportCmd.MarkFlagRequired("tenant")
}

func exportReservations(cfg Config, tenant, out, format string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	docs, err := store.Query(context.Background(), tenant, docstore.Filter{Type: model.DocType})
	if err != nil {
		return err
	}

	var rows []reservationRow
	for _, doc := range docs {
		var target model.Space
		if err := json.Unmarshal(doc.Raw, &target); err != nil {
			return err
		}
		for i := range target.Blocks {
			block := &target.Blocks[i]
			for _, resv := range block.Resv {
				rows = append(rows, reservationRow{
					Space:     target.Name,
					Block:     block.Name,
					ID:        resv.ID,
					CIDR:      resv.CIDR,
					Desc:      resv.Desc,
					Status:    resv.Status,
					CreatedOn: resv.CreatedOn,
					CreatedBy: resv.CreatedBy,
					Settled:   resv.Settled(),
				})
			}
		}
	}

	if out == "-" {
		return writeRows(os.Stdout, rows, format)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeRows(f, rows, format); err != nil {
		return err
	}
	log.Printf("wrote %d reservations to %s\n", len(rows), out)
	return nil
}

func writeRows(w io.Writer, rows []reservationRow, format string) error {
	switch format {
	case "csv":
		return gocsv.Marshal(rows, w)
	case "json":
		return files.EncodeJSON(w, rows)
	case "yaml":
		return files.EncodeYAML(w, rows)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}
