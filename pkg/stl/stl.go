// Package stl reads STL meshes as point sources and writes triangulated
// ellipsoid surfaces back out as binary STL.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Triangle is a single STL facet in single precision, as stored on disk.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

const (
	headerSize   = 80
	triangleSize = 50
)

var (
	// ErrEmpty is returned when a file contains no facets.
	ErrEmpty = errors.New("stl: no triangles found")

	// ErrTruncated is returned when a binary file is shorter than the
	// triangle count in its header requires.
	ErrTruncated = errors.New("stl: binary data truncated")
)

// ReadFile reads every triangle vertex of the STL file at path. Shared
// vertices are repeated once per facet.
func ReadFile(path string) ([][3]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	vertices, err := ReadVertices(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vertices, nil
}

// ReadVertices detects whether r holds ASCII or binary STL and returns all
// triangle vertices in file order.
//
// Some exporters write binary files whose header starts with "solid", so a
// "solid" prefix is only taken as ASCII when the stream length does not match
// the binary layout.
func ReadVertices(r io.ReadSeeker) ([][3]float64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine size: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	header := make([]byte, headerSize+4)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	ascii := n >= 5 && string(header[:5]) == "solid"
	if ascii && n == headerSize+4 {
		count := binary.LittleEndian.Uint32(header[headerSize:])
		if int64(headerSize+4)+int64(count)*triangleSize == size {
			ascii = false
		}
	}

	if !ascii {
		if n < headerSize+4 {
			return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, n)
		}
		count := binary.LittleEndian.Uint32(header[headerSize:])
		if need := int64(headerSize+4) + int64(count)*triangleSize; need > size {
			return nil, fmt.Errorf("%w: header declares %d triangles (%d bytes), got %d bytes",
				ErrTruncated, count, need, size)
		}
	}

	var vertices [][3]float64
	if ascii {
		vertices, err = parseASCII(r)
	} else {
		vertices, err = parseBinary(r)
	}
	if err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, ErrEmpty
	}
	return vertices, nil
}

// parseASCII collects the vertices of every complete facet
func parseASCII(reader io.Reader) ([][3]float64, error) {
	scanner := bufio.NewScanner(reader)
	var (
		vertices [][3]float64
		facet    [][3]float64
		line     int
	)

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var v [3]float64
			for k := 0; k < 3; k++ {
				f, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				v[k] = f
			}
			facet = append(facet, v)

		case "endfacet":
			if len(facet) == 3 {
				vertices = append(vertices, facet...)
			}
			facet = facet[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}
	return vertices, nil
}

// parseBinary reads the little-endian binary layout. The caller has checked
// the header count against the stream length.
func parseBinary(reader io.Reader) ([][3]float64, error) {
	br := bufio.NewReader(reader)
	if _, err := io.CopyN(io.Discard, br, headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	vertices := make([][3]float64, 0, 3*int(count))
	for i := uint32(0); i < count; i++ {
		var tri Triangle
		var attribute uint16
		if err := binary.Read(br, binary.LittleEndian, &tri); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &attribute); err != nil {
			return nil, fmt.Errorf("failed to read attribute for triangle %d: %w", i, err)
		}
		for _, v := range [3][3]float32{tri.Vertex1, tri.Vertex2, tri.Vertex3} {
			vertices = append(vertices, [3]float64{float64(v[0]), float64(v[1]), float64(v[2])})
		}
	}
	return vertices, nil
}

// WriteSTL writes triangles to w in binary STL format.
func WriteSTL(w io.Writer, name string, triangles []Triangle) error {
	header := make([]byte, headerSize)
	copy(header, name)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}
	for i := range triangles {
		if err := binary.Write(bw, binary.LittleEndian, &triangles[i]); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("failed to write attribute for triangle %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// SaveToSTL writes triangles to a binary STL file at path.
func SaveToSTL(path string, triangles []Triangle) error {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, "ellipsoidfit", triangles); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write STL file: %w", err)
	}
	return nil
}
