// Package routes defines the server-level paths mounted outside the feature
// packages.
package routes

const (
	RobotsPath = "/robots.txt"
	HealthPath = "/healthz"

	// RobotsBody keeps crawlers out of the API.
	RobotsBody = "User-agent: *\nDisallow: /api/\n"
)
