package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Prediction Market API
// @version         0.1.0
// @description     Market settlement and ledger engine with pari-mutuel payouts.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
