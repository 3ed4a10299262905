package output

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// WriteCSV writes a header row followed by one row per record. Absent
// values are written as empty cells.
func WriteCSV(w io.Writer, records []nbi.CleanRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(records) == 0 {
		if err := enc.EncodeHeader(nbi.CleanRecord{}); err != nil {
			return eris.Wrap(err, "output: encode csv header")
		}
	} else if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "output: encode csv")
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "output: flush csv")
	}
	return nil
}
