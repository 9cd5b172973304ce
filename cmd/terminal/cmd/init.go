package cmd

import (
	"kassa/cmd/terminal/cmd/product"
	"kassa/cmd/terminal/cmd/sync"
)

func init() {
	rootCmd.AddCommand(product.ProductCmd)
	product.ProductCmd.AddCommand(product.AddCmd)
	product.ProductCmd.AddCommand(product.ListCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
