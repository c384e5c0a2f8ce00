package api

// routes registers the six-endpoint HTTP surface this façade exposes.
func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/tables", s.handleTables)
	s.router.Post("/seed", s.handleSeed)
	s.router.Get("/progress", s.handleProgress)
	s.router.Get("/metrics", s.handleMetrics)
}
