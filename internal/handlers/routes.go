package handlers

import (
	"github.com/gin-gonic/gin"

	"library/internal/middleware"
	"library/internal/models"
)

// RegisterRoutes binds every endpoint with its gate:
//
//	/books/, /library/:id/, /register/, /login/      no gate
//	/logout/                                         authenticated
//	/*-dashboard/                                    role gates
//	/add_book/, /edit_book/, /delete_book/           capability gates
//	/authors/ (POST), /libraries/, /librarians/,
//	/users/:id/...                                   role=Admin
func RegisterRoutes(r *gin.Engine, catalog *CatalogHandler, accounts *AccountHandler, authMW *middleware.AuthMiddleware) {
	// Public catalog pages
	r.GET("/books/", catalog.listBooks)
	r.GET("/library/:id/", catalog.viewLibrary)
	r.GET("/authors/", catalog.listAuthors)

	// Session management
	r.POST("/register/", accounts.register)
	r.POST("/login/", accounts.login)
	r.POST("/logout/", authMW.RequireAuth(), accounts.logout)

	authed := r.Group("", authMW.RequireAuth())

	// Role-gated dashboards
	authed.GET("/admin-dashboard/", authMW.RequireRole(models.RoleAdmin), accounts.adminDashboard)
	authed.GET("/librarian-dashboard/", authMW.RequireRole(models.RoleLibrarian), accounts.librarianDashboard)
	authed.GET("/member-dashboard/", authMW.RequireRole(models.RoleMember), accounts.memberDashboard)

	// Permission-gated book mutations
	addBook := authed.Group("", authMW.RequirePermission(models.PermAddBook))
	addBook.GET("/add_book/", catalog.addBookForm)
	addBook.POST("/add_book/", catalog.addBook)

	editBook := authed.Group("", authMW.RequirePermission(models.PermChangeBook))
	editBook.GET("/edit_book/:id/", catalog.editBookForm)
	editBook.POST("/edit_book/:id/", catalog.editBook)

	deleteBook := authed.Group("", authMW.RequirePermission(models.PermDeleteBook))
	deleteBook.GET("/delete_book/:id/", catalog.confirmDeleteBook)
	deleteBook.POST("/delete_book/:id/", catalog.deleteBook)

	// Admin-only catalog and account administration
	admin := authed.Group("", authMW.RequireRole(models.RoleAdmin))
	admin.POST("/authors/", catalog.createAuthor)
	admin.POST("/libraries/", catalog.createLibrary)
	admin.POST("/librarians/", catalog.createLibrarian)
	admin.PUT("/users/:id/role/", accounts.assignRole)
	admin.POST("/users/:id/permissions/", accounts.grantPermissions)
}
