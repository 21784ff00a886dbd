/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package convert

import (
	"fmt"
	"time"
)

/*
DatePatterns are the supported date layouts ordered from most to least
specific. Values are parsed against the patterns in order, the first match
wins. Stored values are formatted with the first pattern.
*/
var DatePatterns = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"20060102",
	"200601",
	"2006",
}

/*
DateConverter converts between formatted date strings and stored epoch
millisecond values.
*/
type DateConverter struct {
}

/*
ForSetter converts a domain value into its stored representation. Accepts
a time.Time, an epoch millisecond value or a string parseable against one
of the supported date patterns.
*/
func (dc *DateConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	switch v := domain.(type) {

	case time.Time:
		return v.UnixNano() / int64(time.Millisecond), nil

	case int64:
		return v, nil

	case string:
		for _, pattern := range DatePatterns {
			if t, err := time.ParseInLocation(pattern, v, time.UTC); err == nil {
				return t.UnixNano() / int64(time.Millisecond), nil
			}
		}

		return nil, &ConversionError{ErrInvalidValue,
			fmt.Sprintf("Unparseable date: %v", v)}
	}

	return nil, &ConversionError{ErrInvalidValue,
		fmt.Sprintf("Unparseable date: %v", domain)}
}

/*
ForGetter converts a stored value into its domain representation. The
stored epoch milliseconds are formatted with the most specific pattern.
Unreadable stored values are logged and read back as nil.
*/
func (dc *DateConverter) ForGetter(stored interface{}) (interface{}, error) {
	if stored == nil {
		return nil, nil
	}

	millis, ok := stored.(int64)
	if !ok {
		log.Warning("Could not read stored date: ", stored)
		return nil, nil
	}

	t := time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond)).UTC()

	return t.Format(DatePatterns[0]), nil
}

/*
ForSorting converts a stored value into a sortable representation. The
stored epoch milliseconds are already a sortable value.
*/
func (dc *DateConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}
