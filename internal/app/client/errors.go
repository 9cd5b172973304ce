package client

import "errors"

var (
	// ErrStorage — отказ локального хранилища. Оборачивает ошибки sqlite,
	// чтобы движок синхронизации мог отличить их от сетевых.
	ErrStorage = errors.New("ошибка локального хранилища")

	// ErrProductNotFound — товар с таким локальным идентификатором не найден
	ErrProductNotFound = errors.New("товар не найден")

	// ErrSyncInProgress — попытка запустить синхронизацию во время
	// уже идущего прохода
	ErrSyncInProgress = errors.New("синхронизация уже выполняется")

	// ErrChannelClosed — операция над окончательно закрытым realtime-каналом
	ErrChannelClosed = errors.New("канал закрыт")
)
