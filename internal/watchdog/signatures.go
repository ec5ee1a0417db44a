package watchdog

// Default signature sets for the banking portal. Registered once at
// startup; config may append to them but these cover the known interrupts.

// MainPageSignatures are the informational popups that race with the
// landing page after login.
func MainPageSignatures() []Signature {
	return []Signature{
		{
			Name:           "landing-layer-message",
			Class:          AutoDismiss,
			Selectors:      []string{"#opbLayerMessage0"},
			CloseSelectors: []string{"a#opbLayerMessage0_OK", "a.btn_close", "button.close"},
		},
		{
			Name:           "landing-promo",
			Class:          AutoDismiss,
			Selectors:      []string{"div.pop_ty11", ".popup", ".modal"},
			CloseSelectors: []string{"a.btn_close", "button.close", ".close", "a[title='닫기']"},
		},
	}
}

// SecureInputSignatures are the overlays a human must resolve: virtual
// keyboards and secure password entry.
func SecureInputSignatures() []Signature {
	return []Signature{
		{
			Name:        "secure-keyboard",
			Class:       RequiresHuman,
			Selectors:   []string{"#w2ui-popup_1", "#keyboardDialogBody", ".easyPassword"},
			CheckParent: true,
		},
		{
			Name:        "secure-lock-overlay",
			Class:       RequiresHuman,
			Selectors:   []string{"#w2ui-lock-transparent"},
			CheckParent: true,
		},
	}
}

// DevicePopupSignature is the device-registration dialog that can precede
// batch entry. It is surfaced to the operator rather than auto-dismissed
// blindly; the transfer flow gates on it with a prompt.
func DevicePopupSignature() Signature {
	return Signature{
		Name:           "device-registration",
		Class:          AutoDismiss,
		Selectors:      []string{"#w2ui-popup_0", ".w2ui-popup", "#selectDialogBody"},
		CloseSelectors: []string{".w2ui-popup-close", "button.close", "a.btn_close"},
	}
}

// SubmissionSignatures are the fraud-warning popups raised around transfer
// submission; the safe exit is their decline handler.
func SubmissionSignatures() []Signature {
	return []Signature{
		{
			Name:           "voice-phishing-warning",
			Class:          AutoDismiss,
			Selectors:      []string{"#voicePhishingPopup1"},
			CloseSelectors: []string{"#voicePhishingPopup1 a.btn_no", "#voicePhishingPopup1 .btn_close"},
		},
		{
			Name:           "loan-fraud-warning",
			Class:          AutoDismiss,
			Selectors:      []string{"#lonFrdInfoPop"},
			CloseSelectors: []string{"#lonFrdInfoPop a.btn_no"},
			DeclineJS:      `() => pbk.transfer.common.lonFrdInfoPopN()`,
		},
	}
}
