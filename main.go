package main

import "mlbattle/internal/server"

func main() {
	server.StartGinServer()
}
