// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Conic solves cone programs stored as YAML files.
//
// Usage:
//
//	# Solve with the sparse direct backend
//	conic solve problem.yaml
//
//	# Use conjugate gradients and a settings file
//	conic solve problem.yaml --backend indirect --settings settings.yaml
//
//	# Write the solution to a file
//	conic solve problem.yaml --output solution.yaml
//
//	# Show version information
//	conic version
package main

func main() {
	Execute()
}
