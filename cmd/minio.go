package cmd

import (
	"context"
	"fmt"
	"log"

	"AutoDjFM/config"
	"AutoDjFM/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶检查",
	Long:  `列出MinIO存储桶中的音频对象，排查入库结果。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		client := storage.GetMinioClient()
		objects := client.ListObjects(context.Background(), cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		})

		var count int
		var total int64
		for object := range objects {
			if object.Err != nil {
				log.Fatalf("列出对象失败: %v", object.Err)
			}
			fmt.Printf("  %s  (%d bytes)\n", object.Key, object.Size)
			count++
			total += object.Size
		}
		fmt.Printf("共 %d 个对象, %d bytes\n", count, total)
	},
}

func init() {
	minioCmd.Flags().StringVar(&minioPrefix, "prefix", "audio/", "对象前缀过滤")
	rootCmd.AddCommand(minioCmd)
}
