package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/healthz", s.healthz)

	v1 := s.router.Group("/api/v1")
	v1.GET("/deployments", s.deployments)
	v1.GET("/runs", s.runs)
	v1.GET("/runs/:id", s.run)
}
