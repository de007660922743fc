package api

import (
	"net/http"
	"strings"

	"github.com/annel0/mmo-worldgen/internal/auth"
	"github.com/gin-gonic/gin"
)

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Неверный формат токена",
			})
			return
		}

		claims, err := rs.auth.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Недействительный токен",
			})
			return
		}

		c.Set("claims", claims)
		c.Set("is_admin", claims.IsAdmin)
		c.Next()
	}
}

// adminMiddleware проверяет, что пользователь является администратором
func (rs *RestServer) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get("is_admin")
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, GenericResponse{
				Success: false,
				Message: "Отсутствует информация о пользователе",
			})
			return
		}

		if admin, _ := isAdmin.(bool); !admin {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Недостаточно прав доступа",
			})
			return
		}

		c.Next()
	}
}

// claimsFrom возвращает claims, установленные jwtMiddleware
func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
