package main

import (
	"testing"

	_ "github.com/odyssey-erp/ardash/testing"
)

func TestMainSkipsInTestMode(t *testing.T) {
	main()
}
