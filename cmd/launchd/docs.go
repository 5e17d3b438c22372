package main

//go:generate swag init -g cmd/launchd/main.go -o docs

// @title           Launchpad API
// @version         0.1.0
// @description     Token launch auctions: bids, clearing, and settlement tracking.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
