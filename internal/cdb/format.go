package cdb

import (
	"encoding/hex"
	"strings"

	scmd "github.com/ehrlich-b/go-scmd"
)

// Formatter renders a CDB as its opcode name followed by every byte in
// hex, e.g. "Read(10) 28 00 00 00 10 00 00 00 08 00". Opcodes without a
// name render as "opcode=0xNN"; variable-length CDBs add their service
// action.
type Formatter struct{}

// AppendCDB implements scmd.CDBFormatter
func (Formatter) AppendCDB(dst, cdb []byte) []byte {
	if len(cdb) == 0 {
		return append(dst, scmd.UnknownCDB...)
	}
	dst = appendOpcode(dst, cdb)
	return scmd.AppendCDBBytes(dst, cdb)
}

func appendOpcode(dst, cdb []byte) []byte {
	op := cdb[0]
	if name, ok := OpcodeName(op); ok {
		return append(dst, name...)
	}
	dst = append(dst, "opcode=0x"...)
	dst = hex.AppendEncode(dst, cdb[:1])
	if op == VariableLength && len(cdb) >= 10 {
		dst = append(dst, " sa=0x"...)
		dst = hex.AppendEncode(dst, cdb[8:10])
	}
	return dst
}

// String renders cdb with Formatter.
func String(cdb []byte) string {
	var buf [80]byte
	return string(Formatter{}.AppendCDB(buf[:0], cdb))
}

// ParseHex parses CDB bytes given as hex, either one argument per byte
// ("28 00 00") or packed ("280000"). Separators ' ', ':' and '-' are
// ignored.
func ParseHex(args ...string) ([]byte, error) {
	var sb strings.Builder
	for _, a := range args {
		for _, r := range a {
			switch r {
			case ' ', ':', '-', '\t':
				continue
			}
			sb.WriteRune(r)
		}
	}
	packed := strings.TrimPrefix(strings.ToLower(sb.String()), "0x")
	b, err := hex.DecodeString(packed)
	if err != nil {
		e := scmd.NewError("PARSE_CDB", scmd.ErrCodeInvalidParameters, err.Error())
		e.Inner = err
		return nil, e
	}
	if len(b) > scmd.MaxCDBSize {
		return nil, scmd.NewError("PARSE_CDB", scmd.ErrCodeInvalidParameters, "cdb longer than 32 bytes")
	}
	return b, nil
}

var _ scmd.CDBFormatter = Formatter{}
