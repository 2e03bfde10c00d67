package v1

import (
	"github.com/gin-gonic/gin"
)

// CrudRouteHandler is the route surface shared by the attribute,
// attribute set and entity handlers.
type CrudRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCrudRoutes wires the standard CRUD routes for one resource.
func RegisterCrudRoutes(group *gin.RouterGroup, handler CrudRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
}
