// Package helper provides observability spies for tests.
package helper
