package health

type Input struct{}

type Output struct {
	Body Response
}

// Response — ответ проверки живости. Терминалы опрашивают его
// перед синхронизацией, чтобы отличить офлайн от ошибки сервера.
type Response struct {
	Status string `json:"status" example:"OK" doc:"Состояние сервера Kassa"`
}
