// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// maxSlotID bounds ranges so a typo like "1-1000000000" cannot run away.
const maxSlotID = 9999

// parseSlotIDs parses lists like "1,3-5" into slot ids, in order.
func parseSlotIDs(input string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			id, err := parseSlotID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			continue
		}
		start, err := parseSlotID(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid start of range: %w", err)
		}
		end, err := parseSlotID(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid end of range: %w", err)
		}
		if start > end {
			return nil, fmt.Errorf("start of range %d is greater than end %d", start, end)
		}
		for i := start; i <= end; i++ {
			ids = append(ids, i)
		}
	}
	return ids, nil
}

func parseSlotID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	if id < 0 || id > maxSlotID {
		return 0, fmt.Errorf("id out of range: %d", id)
	}
	return id, nil
}
