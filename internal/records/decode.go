package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeLines parses newline-delimited JSON objects. Blank lines are skipped.
// Any malformed line fails the whole input.
func DecodeLines[T any](r io.Reader) ([]T, error) {
	br := bufio.NewReader(r)
	var out []T
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				var rec T
				if uerr := json.Unmarshal(trimmed, &rec); uerr != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, uerr)
				}
				out = append(out, rec)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
	}
	return out, nil
}

// DecodeInto parses data as the given kind and installs it on c.
// On error c is left unchanged.
func DecodeInto(c *Collections, k Kind, data []byte) (int, error) {
	r := bytes.NewReader(data)
	var n int
	var err error
	switch k {
	case KindOrders:
		n, err = assign(&c.Orders, r)
	case KindBatches:
		n, err = assign(&c.Batches, r)
	case KindLabs:
		n, err = assign(&c.Labs, r)
	case KindInventory:
		n, err = assign(&c.Inventory, r)
	case KindTurnover:
		n, err = assign(&c.Turnover, r)
	case KindApprovals:
		n, err = assign(&c.Approvals, r)
	case KindSubmissions:
		n, err = assign(&c.Submissions, r)
	case KindSupplierPerf:
		n, err = assign(&c.SupplierPerf, r)
	case KindDeviations:
		n, err = assign(&c.Deviations, r)
	default:
		return 0, fmt.Errorf("decode: unknown record kind %d", int(k))
	}
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", k, err)
	}
	return n, nil
}

func assign[T any](dst *[]T, r io.Reader) (int, error) {
	rs, err := DecodeLines[T](r)
	if err != nil {
		return 0, err
	}
	*dst = rs
	return len(rs), nil
}
