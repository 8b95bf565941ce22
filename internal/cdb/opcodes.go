// Package cdb decodes, builds and renders SCSI command descriptor blocks.
package cdb

// Opcodes
const (
	TestUnitReady      = 0x00
	RequestSense       = 0x03
	Read6              = 0x08
	Write6             = 0x0a
	Inquiry            = 0x12
	ModeSense6         = 0x1a
	ReadCapacity10     = 0x25
	Read10             = 0x28
	Write10            = 0x2a
	Verify10           = 0x2f
	SynchronizeCache   = 0x35
	WriteSame10        = 0x41
	Unmap              = 0x42
	ModeSense10        = 0x5a
	VariableLength     = 0x7f
	Read16             = 0x88
	Write16            = 0x8a
	SynchronizeCache16 = 0x91
	WriteSame16        = 0x93
	ServiceActionIn16  = 0x9e
	ReportLuns         = 0xa0
)

// Status bytes and host bytes carried in a command's result. The status
// byte occupies bits 0-7, the host byte bits 16-23.
const (
	StatusGood           = 0x00
	StatusCheckCondition = 0x02
	StatusBusy           = 0x08

	HostOK       = 0x00
	HostTimeOut  = 0x03
	HostError    = 0x07
	HostAborted  = 0x05
	hostByteShft = 16
)

// HostResult places a host byte in the result layout.
func HostResult(host byte) int32 {
	return int32(host) << hostByteShft
}

// Fixed CDB lengths per opcode group
const (
	group0Len = 6
	group1Len = 10
	group4Len = 16
	group5Len = 12
)

var opcodeNames = map[byte]string{
	TestUnitReady:      "Test Unit Ready",
	RequestSense:       "Request Sense",
	Read6:              "Read(6)",
	Write6:             "Write(6)",
	Inquiry:            "Inquiry",
	ModeSense6:         "Mode Sense(6)",
	ReadCapacity10:     "Read Capacity(10)",
	Read10:             "Read(10)",
	Write10:            "Write(10)",
	Verify10:           "Verify(10)",
	SynchronizeCache:   "Synchronize Cache(10)",
	WriteSame10:        "Write same(10)",
	Unmap:              "Unmap",
	ModeSense10:        "Mode Sense(10)",
	Read16:             "Read(16)",
	Write16:            "Write(16)",
	SynchronizeCache16: "Synchronize Cache(16)",
	WriteSame16:        "Write same(16)",
	ServiceActionIn16:  "Service Action In(16)",
	ReportLuns:         "Report luns",
}

// OpcodeName returns the display name of op.
func OpcodeName(op byte) (string, bool) {
	name, ok := opcodeNames[op]
	return name, ok
}

// Len returns the fixed CDB length for op's group, or 0 for the
// variable-length and vendor-specific groups.
func Len(op byte) int {
	switch op >> 5 {
	case 0:
		return group0Len
	case 1, 2:
		return group1Len
	case 4:
		return group4Len
	case 5:
		return group5Len
	}
	return 0
}
