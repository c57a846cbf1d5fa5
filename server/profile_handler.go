package server

import (
	"net/http"

	"medprofile/core/validation"
	"medprofile/logger"
	"medprofile/model"
)

// MedicalProfileRequest is the PUT /api/profile/medical body. BirthDate is
// only validated; it is stored with the personal data, not here.
type MedicalProfileRequest struct {
	model.MedicalProfile
	BirthDate string `json:"birthDate,omitempty"`
}

// GetMedicalProfileHandler returns the medical profile and personal data.
func (h *APIHandler) GetMedicalProfileHandler(w http.ResponseWriter, r *http.Request) {
	current, _ := UserFromContext(r.Context())

	user, err := h.userRepo.FindByID(r.Context(), current.ID)
	if err != nil {
		logger.Error("[Profile] 获取医疗档案失败", logger.String("userID", current.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error while fetching medical profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	data := map[string]interface{}{
		"medicalProfile": user.MedicalProfile,
		"personalData":   user.PersonalData,
	}
	if age, err := validation.CalculateAge(user.PersonalData.BirthDate); err == nil {
		data["age"] = age
	}
	writeSuccess(w, http.StatusOK, "", data)
}

// UpdateMedicalProfileHandler replaces the medical profile as a whole.
func (h *APIHandler) UpdateMedicalProfileHandler(w http.ResponseWriter, r *http.Request) {
	current, _ := UserFromContext(r.Context())

	var req MedicalProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := validation.ValidateMedicalProfile(validation.MedicalInput{
		BloodType: req.BloodType,
		Height:    req.Height,
		Weight:    req.Weight,
		BirthDate: req.BirthDate,
	})
	if !result.IsValid {
		writeValidationError(w, "Medical profile validation failed", result.Errors)
		return
	}

	profile := req.MedicalProfile
	profile.Normalize()

	updated, err := h.userRepo.UpdateMedicalProfile(r.Context(), current.ID, profile)
	if err != nil {
		logger.Error("[Profile] 更新医疗档案失败", logger.String("userID", current.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error while updating medical profile")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	h.invalidateIdentity(r.Context(), current.ID)

	writeSuccess(w, http.StatusOK, "Medical profile updated successfully", map[string]interface{}{
		"medicalProfile": profile,
	})
}

// UpdatePersonalDataHandler replaces the personal data as a whole.
func (h *APIHandler) UpdatePersonalDataHandler(w http.ResponseWriter, r *http.Request) {
	current, _ := UserFromContext(r.Context())

	var data model.PersonalData
	if !decodeBody(w, r, &data) {
		return
	}

	var errs []string
	if !validation.IsValidBirthDate(data.BirthDate) {
		errs = append(errs, validation.MsgInvalidBirthDate)
	}
	if !validation.IsValidGender(data.Gender) {
		errs = append(errs, validation.MsgInvalidGender)
	}
	if len(errs) > 0 {
		writeValidationError(w, "Personal data validation failed", errs)
		return
	}

	updated, err := h.userRepo.UpdatePersonalData(r.Context(), current.ID, data)
	if err != nil {
		logger.Error("[Profile] 更新个人资料失败", logger.String("userID", current.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error while updating personal data")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	h.invalidateIdentity(r.Context(), current.ID)

	writeSuccess(w, http.StatusOK, "Personal data updated successfully", map[string]interface{}{
		"personalData": data,
	})
}

// GetCompleteProfileHandler returns the whole record including medical notes.
func (h *APIHandler) GetCompleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	current, _ := UserFromContext(r.Context())

	user, err := h.userRepo.FindCompleteByID(r.Context(), current.ID)
	if err != nil {
		logger.Error("[Profile] 获取完整档案失败", logger.String("userID", current.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error while fetching profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"user": user,
	})
}
