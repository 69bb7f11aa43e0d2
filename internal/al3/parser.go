package al3

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Segment group codes observed in carrier feeds. 2TRG opens a transaction;
// the remaining mapped groups attach detail to the open transaction.
const (
	groupTransaction = "2TRG"
	groupPolicyInfo  = "5BPI"
	groupInsured     = "5BIS"
	groupCoverage    = "6CVG"
	groupVehicle     = "6VEH"
	groupProperty    = "6PCH"
)

// Fixed field positions within each mapped group, counted from the start of
// the segment (group code occupies bytes 0-3). Short segments truncate
// safely; missing positions simply yield empty fields.
const (
	trgTypeStart, trgTypeEnd       = 4, 7
	trgPolicyStart, trgPolicyEnd   = 7, 32
	trgLOBStart, trgLOBEnd         = 32, 37
	trgEffStart, trgEffEnd         = 37, 45
	trgExpStart, trgExpEnd         = 45, 53
	trgNAICStart, trgNAICEnd       = 53, 58
	trgCarrierStart, trgCarrierEnd = 58, 88

	bpiPremiumStart, bpiPremiumEnd = 4, 16

	bisNameStart, bisNameEnd = 4, 64

	cvgCodeStart, cvgCodeEnd       = 4, 10
	cvgLimitStart, cvgLimitEnd     = 10, 22
	cvgDeductStart, cvgDeductEnd   = 22, 34
	cvgPremiumStart, cvgPremiumEnd = 34, 46
	cvgDescStart, cvgDescEnd       = 46, 76

	vehYearStart, vehYearEnd   = 4, 8
	vehMakeStart, vehMakeEnd   = 8, 28
	vehModelStart, vehModelEnd = 28, 48
	vehVINStart, vehVINEnd     = 48, 65

	pchConstrStart, pchConstrEnd = 4, 24
	pchYearStart, pchYearEnd     = 24, 28
	pchValueStart, pchValueEnd   = 28, 40
)

const dateLayout = "20060102"

// Parse converts the raw text content of one AL3 file into an ordered
// sequence of transactions. Each 2TRG segment opens exactly one transaction
// (boundary-counting invariant); segments before the first 2TRG are headers
// and are ignored. Unknown groups are preserved, never fatal. An empty or
// header-only file yields an empty slice, not an error.
func Parse(fileName, content string) []Transaction {
	var (
		transactions []Transaction
		current      *Transaction
		rawSegments  []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Raw = strings.Join(rawSegments, "\n")
		transactions = append(transactions, *current)
		current = nil
		rawSegments = nil
	}

	for _, line := range strings.Split(content, "\n") {
		seg := strings.TrimRight(line, "\r")
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if len(seg) < 4 {
			// Too short to carry a group code; header noise.
			continue
		}
		group := seg[:4]

		if group == groupTransaction {
			flush()
			current = parseTransactionHeader(fileName, seg)
			rawSegments = append(rawSegments, seg)
			continue
		}

		if current == nil {
			continue // file header segment before the first transaction
		}
		rawSegments = append(rawSegments, seg)

		switch group {
		case groupPolicyInfo:
			parsePolicyInfo(current, seg)
		case groupInsured:
			if name := field(seg, bisNameStart, bisNameEnd); name != "" {
				current.NamedInsureds = append(current.NamedInsureds, name)
			}
		case groupCoverage:
			current.Coverages = append(current.Coverages, parseCoverage(current, seg))
		case groupVehicle:
			current.Vehicles = append(current.Vehicles, parseVehicle(current, seg))
		case groupProperty:
			prop := parseProperty(current, seg)
			current.Property = &prop
		default:
			if current.Extra == nil {
				current.Extra = make(map[string]string)
			}
			current.Extra[group] = strings.TrimSpace(seg[4:])
		}
	}
	flush()

	return transactions
}

func parseTransactionHeader(fileName, seg string) *Transaction {
	tx := &Transaction{
		FileName:       fileName,
		Type:           TransactionType(field(seg, trgTypeStart, trgTypeEnd)),
		PolicyNumber:   field(seg, trgPolicyStart, trgPolicyEnd),
		LineOfBusiness: field(seg, trgLOBStart, trgLOBEnd),
		CarrierCode:    field(seg, trgNAICStart, trgNAICEnd),
		CarrierName:    field(seg, trgCarrierStart, trgCarrierEnd),
	}
	tx.EffectiveDate = parseDate(tx, groupTransaction, "effective_date", field(seg, trgEffStart, trgEffEnd))
	tx.ExpirationDate = parseDate(tx, groupTransaction, "expiration_date", field(seg, trgExpStart, trgExpEnd))
	return tx
}

func parsePolicyInfo(tx *Transaction, seg string) {
	raw := field(seg, bpiPremiumStart, bpiPremiumEnd)
	if raw == "" {
		return
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		tx.warn(groupPolicyInfo, "written_premium", raw, "unparseable amount")
		return
	}
	tx.Premium = decimal.NewNullDecimal(amount)
}

func parseCoverage(tx *Transaction, seg string) CoverageDetail {
	return CoverageDetail{
		Code:        field(seg, cvgCodeStart, cvgCodeEnd),
		Description: field(seg, cvgDescStart, cvgDescEnd),
		Limit:       parseAmount(tx, groupCoverage, "limit", field(seg, cvgLimitStart, cvgLimitEnd)),
		Deductible:  parseAmount(tx, groupCoverage, "deductible", field(seg, cvgDeductStart, cvgDeductEnd)),
		Premium:     parseAmount(tx, groupCoverage, "premium", field(seg, cvgPremiumStart, cvgPremiumEnd)),
	}
}

func parseVehicle(tx *Transaction, seg string) VehicleDetail {
	v := VehicleDetail{
		Make:  field(seg, vehMakeStart, vehMakeEnd),
		Model: field(seg, vehModelStart, vehModelEnd),
		VIN:   field(seg, vehVINStart, vehVINEnd),
	}
	if raw := field(seg, vehYearStart, vehYearEnd); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			tx.warn(groupVehicle, "model_year", raw, "unparseable year")
		} else {
			v.ModelYear = year
		}
	}
	return v
}

func parseProperty(tx *Transaction, seg string) PropertyDetail {
	p := PropertyDetail{
		Construction:  field(seg, pchConstrStart, pchConstrEnd),
		DwellingValue: parseAmount(tx, groupProperty, "dwelling_value", field(seg, pchValueStart, pchValueEnd)),
	}
	if raw := field(seg, pchYearStart, pchYearEnd); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			tx.warn(groupProperty, "year_built", raw, "unparseable year")
		} else {
			p.YearBuilt = year
		}
	}
	return p
}

// field extracts and trims the fixed-position field [start,end) from a
// segment, clamping to the segment's actual length.
func field(seg string, start, end int) string {
	if start >= len(seg) {
		return ""
	}
	if end > len(seg) {
		end = len(seg)
	}
	return strings.TrimSpace(seg[start:end])
}

// parseDate returns nil (with a recorded warning) for out-of-bounds values
// rather than aborting the transaction; partial data is preferred over
// total loss.
func parseDate(tx *Transaction, group, fieldName, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		tx.warn(group, fieldName, raw, "unparseable date")
		return nil
	}
	return &d
}

func parseAmount(tx *Transaction, group, fieldName, raw string) decimal.NullDecimal {
	if raw == "" {
		return decimal.NullDecimal{}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		tx.warn(group, fieldName, raw, "unparseable amount")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amount)
}

func (t *Transaction) warn(group, fieldName, value, message string) {
	t.Warnings = append(t.Warnings, ParseWarning{
		FileName: t.FileName,
		Group:    group,
		Field:    fieldName,
		Value:    value,
		Message:  message,
	})
}
