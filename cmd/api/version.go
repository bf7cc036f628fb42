package main

// version подменяется при сборке: -ldflags "-X main.version=..."
var version = "dev"
