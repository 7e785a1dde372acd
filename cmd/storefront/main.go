package main

import "github.com/egannguyen/pharma-storefront/internal/cmd"

func main() {
	cmd.Execute()
}
