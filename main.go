package main

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/middleware"
	"clementus360/ai-photo-editor/routes"
	"clementus360/ai-photo-editor/supabase"
	"net/http"
	"os"
)

func main() {

	config.LoadEnv()
	config.InitLogger()
	supabase.Init()

	mux := http.NewServeMux()
	routes.RegisterAllRoutes(mux)

	handler := middleware.Chain(
		middleware.LoggingMiddleware,
		middleware.CORSMiddleware,
	)(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	config.Logger.Info("Server is running on port ", port)
	config.Logger.Fatal(http.ListenAndServe(":"+port, handler))
}
