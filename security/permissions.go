package security

// Permissions lists the user operations a document allows.
type Permissions struct {
	Print             bool
	Modify            bool
	Copy              bool
	Annotate          bool
	FillForms         bool
	ExtractAccessible bool
	Assemble          bool
	PrintHighQuality  bool
}

// AllPermissions grants every operation.
func AllPermissions() Permissions {
	return Permissions{true, true, true, true, true, true, true, true}
}

// permission bit positions, 1-based as in the /P layout
const (
	bitPrint             = 3
	bitModify            = 4
	bitCopy              = 5
	bitAnnotate          = 6
	bitFillForms         = 9
	bitExtractAccessible = 10
	bitAssemble          = 11
	bitPrintHighQuality  = 12
)

func (p Permissions) flags() []struct {
	bit     uint
	allowed bool
} {
	return []struct {
		bit     uint
		allowed bool
	}{
		{bitPrint, p.Print},
		{bitModify, p.Modify},
		{bitCopy, p.Copy},
		{bitAnnotate, p.Annotate},
		{bitFillForms, p.FillForms},
		{bitExtractAccessible, p.ExtractAccessible},
		{bitAssemble, p.Assemble},
		{bitPrintHighQuality, p.PrintHighQuality},
	}
}

// EncodePermissions packs p into the signed /P value. Reserved bits are set
// and bits 1-2 are clear, so the all-allowed value is -4.
func EncodePermissions(p Permissions) int32 {
	val := int32(-4)
	for _, f := range p.flags() {
		if !f.allowed {
			val &^= 1 << (f.bit - 1)
		}
	}
	return val
}

// DecodePermissions unpacks a /P value.
func DecodePermissions(val int32) Permissions {
	has := func(bit uint) bool { return val&(1<<(bit-1)) != 0 }
	return Permissions{
		Print:             has(bitPrint),
		Modify:            has(bitModify),
		Copy:              has(bitCopy),
		Annotate:          has(bitAnnotate),
		FillForms:         has(bitFillForms),
		ExtractAccessible: has(bitExtractAccessible),
		Assemble:          has(bitAssemble),
		PrintHighQuality:  has(bitPrintHighQuality),
	}
}
