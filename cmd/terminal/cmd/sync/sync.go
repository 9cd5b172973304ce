package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kassa/internal/app/client"
)

var (
	syncStatus bool
	showLog    bool
	logLimit   int
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Отправка накопленных локальных изменений на сервер.

Команда позволяет запустить синхронизацию вручную, просмотреть
статус и журнал прошлых проходов.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		if showLog {
			return showSyncLog(app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация с сервером ===")

	fmt.Println("Проверка соединения с сервером...")
	if err := app.CheckConnection(ctx); err != nil {
		return fmt.Errorf("сервер недоступен: %v", err)
	}

	fmt.Println("Начало синхронизации...")
	start := time.Now()

	result, err := app.Sync(ctx)
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	duration := time.Since(start)

	fmt.Println()
	if result.Success {
		color.Green("✅ Синхронизация завершена!")
	} else {
		color.Yellow("⚠️  Синхронизация завершена с ошибками")
	}
	fmt.Printf("Время выполнения: %v\n", duration.Round(time.Millisecond))
	fmt.Printf("Отправлено: %d операций\n", result.Synced)

	if result.Skipped > 0 {
		fmt.Printf("Пропущено сервером (дубликаты): %d\n", result.Skipped)
	}
	if result.Frozen > 0 {
		fmt.Printf("Заморожено (исчерпан лимит попыток): %d\n", result.Frozen)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("Ошибок при синхронизации: %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i < 3 { // Показываем только первые 3 ошибки
				fmt.Printf("  • %s/%s: %s\n", e.LocalID, e.Operation, e.Error)
			}
		}
		if len(result.Errors) > 3 {
			fmt.Printf("  ... и еще %d ошибок\n", len(result.Errors)-3)
		}
	}

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	status, depth, err := app.SyncStatus(ctx)

	fmt.Println("📊 Локально:")
	fmt.Printf("  Операций в очереди: %d\n", depth)

	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err != nil {
		color.Red("❌ Ошибка: %v", err)
		return nil
	}
	color.Green("✅ OK")

	fmt.Println("\n📦 На сервере:")
	fmt.Printf("  Всего товаров: %d\n", status.TotalEntities)
	fmt.Printf("  Пришло с терминалов: %d\n", status.SyncedEntities)
	fmt.Printf("  Создано онлайн: %d\n", status.LocalOnlyEntities)

	return nil
}

func showSyncLog(app *client.App) error {
	fmt.Println("=== Журнал синхронизации ===")

	entries, err := app.SyncLog(logLimit)
	if err != nil {
		return fmt.Errorf("ошибка чтения журнала: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Журнал пуст: синхронизация еще не запускалась")
		return nil
	}

	for _, entry := range entries {
		mark := color.GreenString("✓")
		if entry.Status != client.SyncStatusSuccess {
			mark = color.RedString("✗")
		}
		fmt.Printf("%s %s | операций: %d | %s\n",
			mark,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.ItemCount,
			entry.Message)
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&showLog, "log", false, "показать журнал синхронизации")
	SyncCmd.Flags().IntVar(&logLimit, "limit", 10, "сколько записей журнала показать")
}
