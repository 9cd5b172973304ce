package middleware

import "github.com/danielgtaylor/huma/v2"

// Container накапливает middleware для очередного хендлера.
// Каждый хендлер получает свой набор через GetAllAndClear.
type Container struct {
	middlewares huma.Middlewares
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Add(mw func(huma.Context, func(huma.Context))) {
	c.middlewares = append(c.middlewares, mw)
}

func (c *Container) GetAllAndClear() huma.Middlewares {
	out := c.middlewares
	c.middlewares = nil
	return out
}
