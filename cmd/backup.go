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
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/pkg/docstore"
	"github.com/RedMane/ipam-engine/pkg/model"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload a tenant's space documents to an S3 bucket",
	Long: `Upload every space document of a tenant to an S3 bucket as JSON.

	Example: ipam backup --tenant tenant-a --s3-bucket ipam-backups

	Credentials come from the standard AWS environment and profile chain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlags(cmd.Flags())
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return backupDocuments(cfg, viper.GetString("tenant"), viper.GetString("s3-bucket"), viper.GetString("s3-prefix"))
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().String("tenant", "", "Tenant to back up")
	backupCmd.Flags().String("store", "file", "Document store backend: file or etcd")
	backupCmd.Flags().String("data-dir", "ipam-data", "Data directory for the file store")
	backupCmd.Flags().StringSlice("etcd-endpoints", []string{"127.0.0.1:2379"}, "etcd endpoints for the etcd store")
	backupCmd.Flags().String("s3-bucket", "", "Bucket to upload the documents to")
	backupCmd.Flags().String("s3-prefix", "ipam", "Key prefix inside the bucket")
	backupCmd.MarkFlagRequired("tenant")
	backupCmd.MarkFlagRequired("s3-bucket")
}

func backupDocuments(cfg Config, tenant, bucket, prefix string) error {
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

	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return err
	}
	uploader := s3manager.NewUploader(sess)

	for _, doc := range docs {
		key := fmt.Sprintf("%s/%s/%s.json", prefix, tenant, doc.ID)
		_, err := uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(doc.Raw),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return err
		}
		log.Printf("uploaded %s (%d bytes)\n", key, len(doc.Raw))
	}
	log.Printf("backed up %d documents for tenant %s\n", len(docs), tenant)
	return nil
}
