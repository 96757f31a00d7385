package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/otp"
	"github.com/quocanhngo/recovery/internal/service"
	"github.com/quocanhngo/recovery/pkg/password"
	"go.uber.org/zap"
)

const acceptedMessage = "If the email is registered, a recovery code has been sent"

// RecoveryHandler handles the forgot-password endpoints
type RecoveryHandler struct {
	recoveryService *service.RecoveryService
	logger          *zap.Logger
}

func NewRecoveryHandler(recoveryService *service.RecoveryService, logger *zap.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		recoveryService: recoveryService,
		logger:          logger,
	}
}

// ForgotPassword godoc
// @Summary Request a password recovery code
// @Description Always answers the same way for registered and unknown emails
// @Tags Recovery
// @Accept json
// @Produce json
// @Param body body model.ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} model.ForgotPasswordResponse
// @Failure 400 {object} model.ForgotPasswordResponse
// @Failure 429 {object} model.ForgotPasswordResponse
// @Failure 503 {object} model.ForgotPasswordResponse
// @Router /auth/forgot-password [post]
func (h *RecoveryHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ForgotPasswordResponse{
			Reason:  service.ReasonInvalidEmail,
			Message: "A valid email address is required",
		})
		return
	}

	res, err := h.recoveryService.RequestRecovery(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("recovery request failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Service unavailable", Message: "Please try again later"})
		return
	}

	switch res.Reason {
	case service.ReasonInvalidEmail:
		c.JSON(http.StatusBadRequest, model.ForgotPasswordResponse{Reason: res.Reason, Message: "A valid email address is required"})
	case service.ReasonRateLimited:
		c.JSON(http.StatusTooManyRequests, model.ForgotPasswordResponse{Reason: res.Reason, Message: "Too many requests. Please try again later"})
	case service.ReasonDeliveryFailed:
		c.JSON(http.StatusServiceUnavailable, model.ForgotPasswordResponse{Reason: res.Reason, Message: "The recovery email could not be sent. Please try again"})
	default:
		c.JSON(http.StatusOK, model.ForgotPasswordResponse{
			Accepted:  true,
			Message:   acceptedMessage,
			ExpiresIn: int(h.recoveryService.CodeTTL().Seconds()),
		})
	}
}

// VerifyOTP godoc
// @Summary Check a recovery code without consuming it
// @Tags Recovery
// @Accept json
// @Produce json
// @Param body body model.VerifyOTPRequest true "Verify OTP request"
// @Success 200 {object} model.VerifyOTPResponse
// @Failure 400 {object} model.VerifyOTPResponse
// @Failure 429 {object} model.VerifyOTPResponse
// @Router /auth/verify-otp [post]
func (h *RecoveryHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	res, err := h.recoveryService.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.logger.Error("code verification failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Service unavailable", Message: "Please try again later"})
		return
	}

	c.JSON(verifyStatus(res.Outcome), model.VerifyOTPResponse{
		Outcome: string(res.Outcome),
		Message: res.Message,
	})
}

// ResetPassword godoc
// @Summary Reset the password with a recovery code
// @Tags Recovery
// @Accept json
// @Produce json
// @Param body body model.ResetPasswordRequest true "Reset password request"
// @Success 200 {object} model.ResetPasswordResponse
// @Failure 400 {object} model.ResetPasswordResponse
// @Failure 422 {object} model.ResetPasswordResponse
// @Failure 503 {object} model.ResetPasswordResponse
// @Router /auth/reset-password [post]
func (h *RecoveryHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	res, err := h.recoveryService.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		h.logger.Error("password reset failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, model.ResetPasswordResponse{
			Outcome: string(service.ResetStoreFailure),
			Message: "Password could not be reset. Please request a new code",
		})
		return
	}

	switch res.Outcome {
	case service.ResetSuccess:
		c.JSON(http.StatusOK, model.ResetPasswordResponse{Outcome: string(res.Outcome), Message: "Password reset successfully"})
	case service.ResetInvalidCode:
		c.JSON(http.StatusBadRequest, model.ResetPasswordResponse{
			Outcome: string(res.Outcome),
			Reason:  string(res.CodeResult),
			Message: "Invalid or expired code",
		})
	case service.ResetWeakPassword:
		c.JSON(http.StatusUnprocessableEntity, model.ResetPasswordResponse{
			Outcome: string(res.Outcome),
			Message: password.Describe(res.Violations),
		})
	default:
		c.JSON(http.StatusServiceUnavailable, model.ResetPasswordResponse{
			Outcome: string(res.Outcome),
			Message: "Password could not be reset. Please request a new code",
		})
	}
}

func verifyStatus(result otp.Result) int {
	switch result {
	case otp.Success:
		return http.StatusOK
	case otp.LockedOut:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
