// Package middleware 把 HTTP / gRPC 入口当作被插桩函数接入 autometrics：
// 每个命中的路由（或 RPC 方法）产出与注解函数相同的三类指标，并把
// 调用方身份写进请求 context，让下游被注解函数的 caller 标签指回入口。
package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/autometrics"
)

// unknownRoute 未命中路由时统一收敛，避免原始 URL 路径打爆标签基数。
const unknownRoute = "unknown"

// Gin 返回记录函数级指标的 Gin 中间件。
// function 标签为 "METHOD 路由模板"，module 标签由调用方指定。
// 状态码小于 500 的响应记为 ok，其余记为 error。
func Gin(module string) gin.HandlerFunc {
	var funcs sync.Map

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unknownRoute
		}
		name := c.Request.Method + " " + route

		f := routeFunc(&funcs, name, module)
		ctx := autometrics.PreInstrument(c.Request.Context(), f,
			autometrics.WithOkIf(func() bool { return c.Writer.Status() < 500 }))
		c.Request = c.Request.WithContext(ctx)

		defer autometrics.Instrument(ctx, nil)
		c.Next()
	}
}

// routeFunc 按 function 标签缓存 Func 描述，路由集合是有界的。
func routeFunc(funcs *sync.Map, name, module string) *autometrics.Func {
	if f, ok := funcs.Load(name); ok {
		return f.(*autometrics.Func)
	}
	f, _ := funcs.LoadOrStore(name, &autometrics.Func{Name: name, Module: module})
	return f.(*autometrics.Func)
}
