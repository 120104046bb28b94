package rtl

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (denseMat *mat.Dense, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", fileName)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read the header of %s", fileName)
	}

	denseMat = &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "can't read %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy writes a matrix into npy file
func WriteNpy(fileName string, m *mat.Dense) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open %s to write", fileName)
	}
	defer func() {
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
	}()
	return errors.Wrapf(npyio.Write(dst, m), "can't write %s", fileName)
}

//AsColumn turns a single row into a column, so a vector stored either way can be used as a target.
func AsColumn(m *mat.Dense) *mat.Dense {
	h, w := m.Dims()
	if h == 1 && w > 1 {
		return mat.DenseCopyOf(m.T())
	}
	return m
}

//ReadTextRows reads rows of whitespace separated numbers. All columns but the last are
//features, the last one is the target. Empty lines are skipped.
func ReadTextRows(source io.Reader) (features, target *mat.Dense, err error) {
	scanner := bufio.NewScanner(source)
	var data []float64
	width, rows, lineNumber := 0, 0, 0

	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if width == 0 {
			width = len(fields)
		}
		if len(fields) != width {
			return nil, nil, errors.Wrapf(ErrRaggedRows, "line %d has %d columns, expected %d", lineNumber, len(fields), width)
		}
		for _, field := range fields {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", lineNumber)
			}
			data = append(data, value)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "can't read rows")
	}
	if rows == 0 {
		return nil, nil, ErrEmptyData
	}
	if width < 2 {
		return nil, nil, ErrEmptyRows
	}

	table := mat.NewDense(rows, width, data)
	features = mat.DenseCopyOf(table.Slice(0, rows, 0, width-1))
	target = mat.DenseCopyOf(table.Slice(0, rows, width-1, width))
	return features, target, nil
}
