//go:build !unix

package store

func mapFile(path string) ([]byte, func(), error) {
	return readWhole(path)
}
