package allocator

import "math"

// crcLength returns the CRC length in bits attached to a UCI payload of the
// given size, per the payload thresholds in §4.3.4.
func crcLength(payloadBits int) int {
	switch {
	case payloadBits < 12:
		return 0
	case payloadBits < 20:
		return 6
	default:
		return 11
	}
}

// segmented reports whether a payload of this size is split into two code
// blocks (§4.3.4: "segmentation occurs at payload >= 360 with codeword >=
// 1088, or payload >= 1013").
func segmented(payloadBits, codewordBits int) bool {
	if payloadBits >= 1013 {
		return true
	}
	return payloadBits >= 360 && codewordBits >= 1088
}

// format2PRBs computes the number of PRBs a Format 2 grant needs to carry
// payloadBits of UCI over the given number of symbols, capped at
// maxPRBs (§4.3.4).
//
//	PRBs = min( ceil( (payload + crc) / (8 * symbols * 2 * max_code_rate) ), max_PRBs )
func format2PRBs(payloadBits int, symbols uint8, maxCodeRate float64, maxPRBs uint16) uint16 {
	crc := crcLength(payloadBits)
	total := float64(payloadBits + crc)
	denom := 8 * float64(symbols) * 2 * maxCodeRate
	if denom <= 0 {
		return maxPRBs
	}
	prbs := uint16(math.Ceil(total / denom))
	if prbs < 1 {
		prbs = 1
	}
	if prbs > maxPRBs {
		return maxPRBs
	}
	return prbs
}

// format2ChannelBits returns the channel-bit capacity of a Format 2 grant
// with the given PRB count and symbol count, used to compute the effective
// code rate.
func format2ChannelBits(prbs uint16, symbols uint8) int {
	return int(prbs) * int(symbols) * 16
}

// format3DMRSSymbols returns the number of OFDM symbols within a Format 3
// grant's duration that carry DM-RS rather than UCI data, depending on the
// total symbol count, whether intra-slot hopping is configured, and whether
// additional DM-RS symbols are configured (§4.3.4).
func format3DMRSSymbols(numSymbols uint8, hopping, additionalDMRS bool) uint8 {
	switch {
	case numSymbols <= 4:
		if hopping {
			return 2
		}
		return 1
	case numSymbols < 10:
		return 2
	default:
		if additionalDMRS {
			return 4
		}
		return 2
	}
}

// format3ChannelBits returns Format 3's per-grant channel-bit capacity:
// prb * 12 * data_symbols * (1 or 2 bits per RE depending on π/2-BPSK).
func format3ChannelBits(prbs uint16, numSymbols uint8, hopping, additionalDMRS, pi2BPSK bool) int {
	dmrs := format3DMRSSymbols(numSymbols, hopping, additionalDMRS)
	dataSymbols := int(numSymbols) - int(dmrs)
	if dataSymbols < 0 {
		dataSymbols = 0
	}
	bitsPerRE := 2
	if pi2BPSK {
		bitsPerRE = 1
	}
	return int(prbs) * 12 * dataSymbols * bitsPerRE
}

// format3PRBs computes the number of PRBs a Format 3 grant needs to carry
// payloadBits of UCI, capped at maxPRBs, the same payload-driven growth
// format2PRBs performs but against Format 3's DM-RS-aware channel-bit
// formula in place of Format 2's fixed 16-bits-per-RE-pair (§4.3.4, testable
// property 3). Grounded on
// original_source/include/srsran/ran/pucch/pucch_info.h's
// get_pucch_format3_nof_prbs.
func format3PRBs(payloadBits int, numSymbols uint8, hopping, additionalDMRS, pi2BPSK bool, maxCodeRate float64, maxPRBs uint16) uint16 {
	crc := crcLength(payloadBits)
	total := float64(payloadBits + crc)
	perPRBBits := format3ChannelBits(1, numSymbols, hopping, additionalDMRS, pi2BPSK)
	denom := float64(perPRBBits) * maxCodeRate
	if denom <= 0 {
		return maxPRBs
	}
	prbs := uint16(math.Ceil(total / denom))
	if prbs < 1 {
		prbs = 1
	}
	if prbs > maxPRBs {
		return maxPRBs
	}
	return prbs
}

// format4ChannelBits returns Format 4's per-grant channel-bit capacity,
// spreading-factor scaled; Format 4 does not vary its PRB count (always 1).
func format4ChannelBits(numSymbols uint8, hopping, additionalDMRS, pi2BPSK bool, occLength uint8) int {
	dmrs := format3DMRSSymbols(numSymbols, hopping, additionalDMRS)
	dataSymbols := int(numSymbols) - int(dmrs)
	if dataSymbols < 0 {
		dataSymbols = 0
	}
	bitsPerRE := 2
	if pi2BPSK {
		bitsPerRE = 1
	}
	sf := int(occLength)
	if sf == 0 {
		sf = 1
	}
	return (12 * dataSymbols * bitsPerRE) / sf
}

// effectiveCodeRate returns (payload+crc)/channel_bits, the quantity the
// 0.80 ceiling applies to (§4.3.4, testable property 3).
func effectiveCodeRate(payloadBits, channelBits int) float64 {
	if channelBits <= 0 {
		return math.Inf(1)
	}
	crc := crcLength(payloadBits)
	return float64(payloadBits+crc) / float64(channelBits)
}
