// Package routes holds the navigation targets the application shell uses
// after sign-in and on authorization failures: the login screen, the prefix
// of the auth screens and each role's home dashboard. Targets are
// configuration and may be overridden from a YAML file:
//
//	login_path: /auth/login
//	auth_prefix: /auth
//	default_home: /dashboard/client
//	homes:
//	  admin: /dashboard/admin
//	  developer: /dashboard/developer
package routes
