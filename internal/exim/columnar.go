package exim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// columnsKey holds the ordered column list in the file's key-value metadata.
// Parquet groups sort their fields by name, so the declared order is kept here.
const columnsKey = "companion.columns"

const writeBatch = 128

// WriteColumnar writes items to a new parquet file at path. The schema comes
// from the first item; every item must produce the same columns.
// onProgress is called after each item with the number written so far.
func WriteColumnar[T Exportable](ctx context.Context, path string, items []T, onProgress func(done, total int, item T)) error {
	if len(items) == 0 {
		return errors.New("no records to write")
	}

	cols, err := ColumnsOf(items[0])
	if err != nil {
		return err
	}
	schema := parquetSchema(cols)
	leaves, err := leafIndexes(schema, cols)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(cols)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewWriter(f, schema,
		parquet.KeyValueMetadata(columnsKey, string(meta)),
		parquet.Compression(&parquet.Snappy),
	)

	batch := make([]parquet.Row, 0, writeBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.WriteRows(batch); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := toRow(item.Fields(), cols, leaves)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
		if onProgress != nil {
			onProgress(i+1, len(items), item)
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", path, err)
	}
	return f.Close()
}

// ReadColumnar reads a file written by WriteColumnar, rebuilding records
// batchSize at a time. onBatch receives each batch with the number of
// records read so far and the total in the file.
func ReadColumnar[T Importable[T]](ctx context.Context, path string, batchSize int, onBatch func(batch []T, read, total int64) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	raw, ok := pf.Lookup(columnsKey)
	if !ok {
		return fmt.Errorf("%s has no column metadata", path)
	}
	var cols []Column
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return fmt.Errorf("invalid column metadata: %w", err)
	}
	leaves, err := leafIndexes(pf.Schema(), cols)
	if err != nil {
		return err
	}
	// leaf column index -> declared position
	position := make(map[int]int, len(leaves))
	for pos, leaf := range leaves {
		position[leaf] = pos
	}

	var (
		zero  T
		read  int64
		total = pf.NumRows()
		buf   = make([]parquet.Row, batchSize)
	)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			if err := ctx.Err(); err != nil {
				rows.Close()
				return err
			}

			n, readErr := rows.ReadRows(buf)
			if n > 0 {
				batch := make([]T, 0, n)
				for _, row := range buf[:n] {
					values := make([]any, len(cols))
					for _, v := range row {
						pos, ok := position[v.Column()]
						if !ok {
							continue
						}
						values[pos] = fromValue(v, cols[pos].Type)
					}
					item, err := zero.FromValues(values)
					if err != nil {
						rows.Close()
						return fmt.Errorf("row %d: %w", read+int64(len(batch)), err)
					}
					batch = append(batch, item)
				}
				read += int64(n)
				if err := onBatch(batch, read, total); err != nil {
					rows.Close()
					return err
				}
			}

			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				rows.Close()
				return fmt.Errorf("failed to read rows: %w", readErr)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
	}
	return nil
}

func parquetSchema(cols []Column) *parquet.Schema {
	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		group[c.Name] = parquet.Optional(parquetNode(c.Type))
	}
	return parquet.NewSchema("record", group)
}

func parquetNode(t ColumnType) parquet.Node {
	switch t {
	case TypeInt64:
		return parquet.Int(64)
	case TypeInt32:
		return parquet.Int(32)
	case TypeBool:
		return parquet.Leaf(parquet.BooleanType)
	case TypeString:
		return parquet.String()
	case TypeDouble:
		return parquet.Leaf(parquet.DoubleType)
	default:
		return parquet.Leaf(parquet.ByteArrayType)
	}
}

// leafIndexes maps each declared column to its leaf index in schema
func leafIndexes(schema *parquet.Schema, cols []Column) ([]int, error) {
	leaves := make([]int, len(cols))
	for i, c := range cols {
		leaf, ok := schema.Lookup(c.Name)
		if !ok {
			return nil, fmt.Errorf("column %q missing from schema", c.Name)
		}
		leaves[i] = leaf.ColumnIndex
	}
	return leaves, nil
}

func toRow(fields []FieldInfo, cols []Column, leaves []int) (parquet.Row, error) {
	if len(fields) != len(cols) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(cols), len(fields))
	}
	row := make(parquet.Row, len(cols))
	for i, f := range fields {
		if f.Name != cols[i].Name {
			return nil, fmt.Errorf("field %d is %q, expected %q", i, f.Name, cols[i].Name)
		}
		v, err := toValue(f.Value, cols[i].Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		def := 1
		if v.IsNull() {
			def = 0
		}
		row[leaves[i]] = v.Level(0, def, leaves[i])
	}
	return row, nil
}

func toValue(v any, t ColumnType) (parquet.Value, error) {
	if v == nil {
		return parquet.NullValue(), nil
	}
	switch x := v.(type) {
	case int64:
		if t == TypeInt64 {
			return parquet.Int64Value(x), nil
		}
	case int:
		if t == TypeInt64 {
			return parquet.Int64Value(int64(x)), nil
		}
	case int32:
		if t == TypeInt32 {
			return parquet.Int32Value(x), nil
		}
	case bool:
		if t == TypeBool {
			return parquet.BooleanValue(x), nil
		}
	case string:
		if t == TypeString {
			return parquet.ByteArrayValue([]byte(x)), nil
		}
	case []byte:
		if t == TypeBytes {
			if x == nil {
				return parquet.NullValue(), nil
			}
			return parquet.ByteArrayValue(x), nil
		}
	case float64:
		if t == TypeDouble {
			return parquet.DoubleValue(x), nil
		}
	}
	return parquet.Value{}, fmt.Errorf("value of type %T does not match column type %s", v, t)
}

func fromValue(v parquet.Value, t ColumnType) any {
	if v.IsNull() {
		return nil
	}
	switch t {
	case TypeInt64:
		return v.Int64()
	case TypeInt32:
		return v.Int32()
	case TypeBool:
		return v.Boolean()
	case TypeString:
		return string(v.ByteArray())
	case TypeDouble:
		return v.Double()
	default:
		return append([]byte{}, v.ByteArray()...)
	}
}
