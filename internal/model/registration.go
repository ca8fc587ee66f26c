package model

import (
    "errors"
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/ward-bed-registry/internal/apperr"
)

var validate = validator.New()

// RegisterBedRequest is the payload of POST /bed.  WardName is informative
// only; the ward's display name is always taken from the ward set.
type RegisterBedRequest struct {
    BedID    string `json:"bed_id" validate:"required,max=64"`
    BedType  string `json:"bed_type"`
    WardID   string `json:"ward_id" validate:"required"`
    WardName string `json:"ward_name,omitempty"`
}

// Normalize validates the request and returns the bed it describes.  The
// returned bed has status Functional and no timestamps.  Failures are
// validation errors naming the offending field.
func (r RegisterBedRequest) Normalize() (Bed, error) {
    r.BedID = strings.TrimSpace(r.BedID)
    r.WardID = strings.ToUpper(strings.TrimSpace(r.WardID))
    if err := validate.Struct(r); err != nil {
        var verrs validator.ValidationErrors
        if errors.As(err, &verrs) && len(verrs) > 0 {
            fe := verrs[0]
            field := jsonName(fe.Field())
            switch fe.Tag() {
            case "required":
                return Bed{}, apperr.Validation(field, "is required")
            case "max":
                return Bed{}, apperr.Validation(field, "must be at most "+fe.Param()+" characters")
            }
            return Bed{}, apperr.Validation(field, "is invalid")
        }
        return Bed{}, apperr.Validation("", err.Error())
    }
    ward, ok := LookupWard(r.WardID)
    if !ok {
        return Bed{}, apperr.Validation("ward_id", "unknown ward "+r.WardID)
    }
    bt, ok := ParseBedType(r.BedType)
    if !ok {
        return Bed{}, apperr.Validation("bed_type", "invalid bed type")
    }
    return Bed{
        BedID:    r.BedID,
        BedType:  bt,
        WardID:   ward.ID,
        WardName: ward.Name,
        Status:   StatusFunctional,
    }, nil
}

// StatusUpdateRequest is the payload of PUT /bed-status.
type StatusUpdateRequest struct {
    BedID  string    `json:"bed_id"`
    Status BedStatus `json:"status"`
}

func jsonName(field string) string {
    switch field {
    case "BedID":
        return "bed_id"
    case "WardID":
        return "ward_id"
    case "BedType":
        return "bed_type"
    }
    return strings.ToLower(field)
}
