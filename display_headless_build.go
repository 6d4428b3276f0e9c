//go:build headless

// display_headless_build.go - screen output unavailable in headless builds
package main

import "fmt"

func newScreenDisplay() (DisplayBoundary, error) {
	return nil, fmt.Errorf("display: screen output not available in a headless build")
}
