package product

import (
	"github.com/spf13/cobra"
)

// ProductCmd - родительская команда для операций с товарами
var ProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Управление товарами",
	Long:  `Добавление и просмотр товаров кассового терминала.`,
}
