package product

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kassa/internal/app/client"
)

var (
	addName        string
	addPrice       float64
	addDescription string
	addCategory    string
	addStock       int
	addImageURL    string
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить товар",
	Long: `Добавление товара в локальный каталог терминала.

Товар доступен для продажи сразу, отправка на сервер произойдет
при следующей синхронизации.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		p, err := app.AddProduct(addName, addPrice, addDescription, addCategory, addStock, addImageURL)
		if err != nil {
			return fmt.Errorf("ошибка добавления товара: %w", err)
		}

		color.Green("✅ Товар добавлен")
		fmt.Printf("Локальный ID: %s\n", p.LocalID)
		fmt.Printf("Название: %s\n", p.Name)
		fmt.Printf("Цена: %.2f\n", p.Price)
		fmt.Printf("Остаток: %d\n", p.Stock)
		fmt.Println()
		fmt.Println("Отправка на сервер: kassa sync")

		return nil
	},
}

func init() {
	AddCmd.Flags().StringVarP(&addName, "name", "n", "", "название товара (обязательно)")
	AddCmd.Flags().Float64VarP(&addPrice, "price", "p", 0, "цена товара")
	AddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "описание")
	AddCmd.Flags().StringVarP(&addCategory, "category", "c", "", "категория")
	AddCmd.Flags().IntVarP(&addStock, "stock", "s", 0, "остаток на складе")
	AddCmd.Flags().StringVar(&addImageURL, "image", "", "URL изображения")

	AddCmd.MarkFlagRequired("name")
}
