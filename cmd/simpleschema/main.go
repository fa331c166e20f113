// Package main is the entry point for the simpleschema CLI.
package main

func main() {
	Execute()
}
