//go:build gocv

package main

import "github.com/banshee-data/deadspace/internal/deadspace/cvbackend"

func init() {
	backends["opencv"] = cvbackend.Backend{}
}
