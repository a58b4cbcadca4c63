// Package api provides the tenant provisioning REST API.
//
//	@title						FaceBlog Provisioning API
//	@version					1.0
//	@description				Tenant provisioning orchestrator for the FaceBlog blogging platform
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api
