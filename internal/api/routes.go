package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/register", handler.Register)
		api.POST("/login", handler.Login)
		api.POST("/predict", handler.Predict)

		api.GET("/marketplace", handler.Marketplace)
		api.GET("/nearby_cities", handler.NearbyCities)
		api.GET("/city/:city_name", handler.CityStats)
		api.GET("/compare", handler.Compare)
		api.GET("/cities", handler.Cities)
		api.GET("/search_nearby", handler.SearchNearby)
		api.GET("/search/budget", handler.BudgetSearch)
		api.GET("/search/price", handler.PriceSearch)
		api.GET("/properties/sorted", handler.SortedProperties)
	}

	user := api.Group("", handler.auth.Middleware())
	{
		user.POST("/buy/:property_id", handler.Buy)
		user.POST("/sell/:property_id", handler.Sell)
		user.GET("/dashboard", handler.Dashboard)
	}
}
