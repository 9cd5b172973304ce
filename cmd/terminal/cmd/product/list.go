package product

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kassa/internal/app/client"
)

var listFormat string

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список товаров",
	Long:  `Просмотр локального каталога товаров терминала.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		products, err := app.Products()
		if err != nil {
			return fmt.Errorf("ошибка получения списка товаров: %w", err)
		}

		if len(products) == 0 {
			fmt.Println("Товары не найдены")
			return nil
		}

		switch listFormat {
		case "table":
			return printProductsTable(products)
		default:
			return printProductsSimple(products)
		}
	},
}

func printProductsSimple(products []*client.PendingProduct) error {
	fmt.Printf("Найдено товаров: %d\n\n", len(products))

	for i, p := range products {
		status := color.YellowString("⏳ не синхронизирован")
		if p.Synced {
			status = color.GreenString("✓ синхронизирован")
		}

		fmt.Printf("%d. %s — %.2f (остаток: %d)\n", i+1, p.Name, p.Price, p.Stock)
		fmt.Printf("   ID: %s | %s | Создан: %s\n",
			p.LocalID, status, p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func printProductsTable(products []*client.PendingProduct) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tЦЕНА\tОСТАТОК\tКАТЕГОРИЯ\tСИНХР.")
	for _, p := range products {
		synced := "нет"
		if p.Synced {
			synced = "да"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\t%s\n",
			p.LocalID, p.Name, p.Price, p.Stock, p.Category, synced)
	}

	return nil
}

func init() {
	ListCmd.Flags().StringVar(&listFormat, "format", "simple", "формат вывода (simple, table)")
}
