package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leaplineadmin/brevy-sub002/internal/render"
)

// ListTemplates serves the public template gallery.
func ListTemplates(c *gin.Context) {
	templates := render.List()
	items := make([]gin.H, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, gin.H{
			"name":         tpl.Name,
			"display_name": tpl.DisplayName,
			"premium":      tpl.Premium,
		})
	}
	c.JSON(http.StatusOK, gin.H{"templates": items})
}
