//go:build !linux

package migration

import "os"

func adviseSequential(*os.File) {}
