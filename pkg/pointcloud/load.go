package pointcloud

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"ellipsoidfit/pkg/stl"
)

// ErrNoPoints is returned when an input holds no samples.
var ErrNoPoints = errors.New("pointcloud: no points found")

// Load reads a point set from path. The format follows the extension:
// ".stl" reads mesh vertices, ".csv" reads comma separated x,y,z rows, and
// anything else is read as whitespace separated text.
func Load(path string) (Points3D, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		vertices, err := stl.ReadFile(path)
		if err != nil {
			return nil, err
		}
		points := make(Points3D, len(vertices))
		for i, v := range vertices {
			points[i] = Point3D{X: v[0], Y: v[1], Z: v[2]}
		}
		return points, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open point file: %w", err)
	}
	defer file.Close()

	var points Points3D
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		points, err = ReadCSV(file)
	} else {
		points, err = ReadText(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// ReadCSV reads x,y,z records. Columns beyond the third are ignored and
// leading records that do not parse as numbers are taken as headers.
func ReadCSV(r io.Reader) (Points3D, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var points Points3D
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		p, err := parsePoint(record)
		if err != nil {
			if len(points) == 0 {
				continue
			}
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	return points, nil
}

// ReadText reads one point per line as whitespace separated coordinates.
// Blank lines and lines starting with '#' are skipped.
func ReadText(r io.Reader) (Points3D, error) {
	scanner := bufio.NewScanner(r)
	var points Points3D
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := parsePoint(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading points: %w", err)
	}

	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	return points, nil
}

func parsePoint(fields []string) (Point3D, error) {
	if len(fields) < 3 {
		return Point3D{}, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for k := 0; k < 3; k++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[k]), 64)
		if err != nil {
			return Point3D{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Point3D{}, fmt.Errorf("coordinate %q is not finite", fields[k])
		}
		c[k] = f
	}
	return Point3D{X: c[0], Y: c[1], Z: c[2]}, nil
}

// WriteText writes the rows of the N×3 matrix points as whitespace separated
// text that ReadText accepts.
func WriteText(w io.Writer, points mat.Matrix) error {
	bw := bufio.NewWriter(w)
	n, _ := points.Dims()
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(bw, "%.17g %.17g %.17g\n", points.At(i, 0), points.At(i, 1), points.At(i, 2)); err != nil {
			return fmt.Errorf("failed to write point %d: %w", i, err)
		}
	}
	return bw.Flush()
}
